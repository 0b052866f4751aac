package sign

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Supported signature methods.
const (
	MethodHmacSHA1   = "HmacSHA1"
	MethodHmacSHA256 = "HmacSHA256"
)

// Header names of the header based variant.
const (
	HeaderDate             = "x-ots-date"
	HeaderAPIVersion       = "x-ots-apiversion"
	HeaderAccessKeyID      = "x-ots-accesskeyid"
	HeaderSignatureMethod  = "x-ots-signaturemethod"
	HeaderSignatureVersion = "x-ots-signatureversion"
	HeaderContentMD5       = "x-ots-contentmd5"
	HeaderSignature        = "x-ots-signature"
	HeaderRequestID        = "x-ots-requestid"
	HeaderHostID           = "x-ots-hostid"
)

// Param is a request parameter or header in insertion order.
type Param struct {
	Name  string
	Value string
}

// SignedRequest is the result of signing. It is not modified after signing.
type SignedRequest struct {
	CanonicalURI string
	// Params holds the parameters (parameter based) or the x-ots-* headers (header
	// based), including the signature itself.
	Params    []Param
	Signature string
}

// Encode renders the parameters as a query string in their original order, with the
// same escaping that was used for signing.
func (r SignedRequest) Encode() string {
	tokens := make([]string, len(r.Params))
	for i, p := range r.Params {
		tokens[i] = EscapeComponent(p.Name) + "=" + EscapeComponent(p.Value)
	}
	return strings.Join(tokens, "&")
}

// Header returns the parameters as an http.Header.
func (r SignedRequest) Header() http.Header {
	h := make(http.Header, len(r.Params))
	for _, p := range r.Params {
		h.Set(p.Name, p.Value)
	}
	return h
}

// Signer holds the credentials and protocol constants of a client. The zero values of
// SignatureMethod and SignatureVersion mean HmacSHA1 and "1".
type Signer struct {
	AccessKeyID      string
	AccessKeySecret  string
	APIVersion       string
	SignatureMethod  string
	SignatureVersion string
}

func (s Signer) method() string {
	if s.SignatureMethod == "" {
		return MethodHmacSHA1
	}
	return s.SignatureMethod
}

func (s Signer) version() string {
	if s.SignatureVersion == "" {
		return "1"
	}
	return s.SignatureVersion
}

// FormatDate renders t the way the service expects request dates (RFC 1123, GMT).
func FormatDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// --------------------------------------------------------------------------
// Parameter based signing
// --------------------------------------------------------------------------

// ParamStringToSign returns the canonical string of the parameter based variant.
func ParamStringToSign(canonicalURI string, params []Param) string {
	sorted := make([]string, len(params))
	for i, p := range params {
		sorted[i] = EscapeComponent(p.Name) + "=" + EscapeComponent(p.Value)
	}
	sort.Strings(sorted)
	return canonicalURI + "\n" + strings.Join(sorted, "&")
}

// SignParams appends the fixed parameters and the signature to params. The input slice
// is not modified.
func (s Signer) SignParams(canonicalURI string, params []Param, date time.Time) (SignedRequest, error) {
	all := make([]Param, 0, len(params)+6)
	all = append(all, params...)
	all = append(all,
		Param{"APIVersion", s.APIVersion},
		Param{"Date", FormatDate(date)},
		Param{"OTSAccessKeyId", s.AccessKeyID},
		Param{"SignatureMethod", s.method()},
		Param{"SignatureVersion", s.version()},
	)
	signature, err := s.Compute(ParamStringToSign(canonicalURI, all))
	if err != nil {
		return SignedRequest{}, err
	}
	all = append(all, Param{"Signature", signature})
	return SignedRequest{CanonicalURI: canonicalURI, Params: all, Signature: signature}, nil
}

// VerifyParams recomputes the signature of a received parameter list and compares it
// with its Signature parameter.
func (s Signer) VerifyParams(canonicalURI string, params []Param) error {
	got, ok := Lookup(params, "Signature")
	if !ok {
		return ErrSignatureMismatch
	}
	unsigned := make([]Param, 0, len(params))
	for _, p := range params {
		if p.Name != "Signature" {
			unsigned = append(unsigned, p)
		}
	}
	want, err := s.Compute(ParamStringToSign(canonicalURI, unsigned))
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(want), []byte(got)) {
		return ErrSignatureMismatch
	}
	return nil
}

// --------------------------------------------------------------------------
// Header based signing
// --------------------------------------------------------------------------

// HeaderStringToSign returns the canonical string of the header based variant. Only
// x-ots-* headers take part, except x-ots-signature itself.
func HeaderStringToSign(canonicalURI, verb string, headers []Param) string {
	sorted := make([]string, 0, len(headers))
	for _, h := range headers {
		name := strings.ToLower(h.Name)
		if !strings.HasPrefix(name, "x-ots-") || name == HeaderSignature {
			continue
		}
		sorted = append(sorted, name+":"+strings.TrimSpace(h.Value))
	}
	sort.Strings(sorted)
	return canonicalURI + "\n" + verb + "\n\n" + strings.Join(sorted, "\n") + "\n"
}

// ContentMD5 returns the base64 MD5 digest of body.
func ContentMD5(body []byte) string {
	sum := md5.Sum(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// SignHeaders builds and signs the x-ots-* headers of a POST request with body.
// The returned Params are sorted by header name and end with x-ots-signature.
func (s Signer) SignHeaders(canonicalURI string, body []byte, date time.Time) (SignedRequest, error) {
	headers := []Param{
		{HeaderAccessKeyID, s.AccessKeyID},
		{HeaderAPIVersion, s.APIVersion},
		{HeaderContentMD5, ContentMD5(body)},
		{HeaderDate, FormatDate(date)},
		{HeaderSignatureMethod, s.method()},
		{HeaderSignatureVersion, s.version()},
	}
	signature, err := s.Compute(HeaderStringToSign(canonicalURI, http.MethodPost, headers))
	if err != nil {
		return SignedRequest{}, err
	}
	headers = append(headers, Param{HeaderSignature, signature})
	return SignedRequest{CanonicalURI: canonicalURI, Params: headers, Signature: signature}, nil
}

// VerifyHeaders recomputes the signature of a received request and compares it with the
// x-ots-signature header. The content digest is checked against body as well.
func (s Signer) VerifyHeaders(canonicalURI string, header http.Header, body []byte) error {
	if got := header.Get(HeaderContentMD5); got != ContentMD5(body) {
		return ErrContentMD5Mismatch
	}
	params := make([]Param, 0, len(header))
	for name, values := range header {
		if len(values) > 0 {
			params = append(params, Param{name, values[0]})
		}
	}
	want, err := s.Compute(HeaderStringToSign(canonicalURI, http.MethodPost, params))
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(want), []byte(header.Get(HeaderSignature))) {
		return ErrSignatureMismatch
	}
	return nil
}

// --------------------------------------------------------------------------
// Keyed hash
// --------------------------------------------------------------------------

// Compute returns the base64 keyed hash of stringToSign with the secret key.
func (s Signer) Compute(stringToSign string) (string, error) {
	var h func() hash.Hash
	switch s.method() {
	case MethodHmacSHA1:
		h = sha1.New
	case MethodHmacSHA256:
		h = sha256.New
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, s.SignatureMethod)
	}
	mac := hmac.New(h, []byte(s.AccessKeySecret))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
