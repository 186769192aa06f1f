package main

import "github.com/jancika1998-netizen/Water-Level/cmd"

func main() {
	cmd.Execute()
}
