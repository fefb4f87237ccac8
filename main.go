/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/tasklist/apiserver/cmd"

func main() {
	cmd.Execute()
}
