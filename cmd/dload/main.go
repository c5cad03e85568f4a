package main

import "github.com/ValentinKolb/dLoad/cmd"

func main() {
	cmd.Execute()
}
