package main

import "github.com/ValentinKolb/otsc/cmd"

func main() {
	cmd.Execute()
}
