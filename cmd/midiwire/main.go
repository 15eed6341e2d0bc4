/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ssargent/midiwire/cmd/midiwire/cmd"

func main() {
	cmd.Execute()
}
