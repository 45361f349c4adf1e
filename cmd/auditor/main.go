package main

import "github.com/JakeFAU/prospect-auditor/cmd"

func main() {
	cmd.Execute()
}
