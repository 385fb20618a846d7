/*
Copyright © 2026 Marian Rusoiu
*/
package main

import "github.com/MarianRusoiu99/text-based-sub001/cmd"

func main() {
	cmd.Execute()
}
