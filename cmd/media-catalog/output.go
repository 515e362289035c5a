package main

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	labelColor   = color.New(color.FgCyan)
)

func printSuccess(format string, args ...interface{}) {
	successColor.Printf(format+"\n", args...)
}

func printWarning(format string, args ...interface{}) {
	warningColor.Printf(format+"\n", args...)
}

func printError(format string, args ...interface{}) {
	errorColor.Printf(format+"\n", args...)
}

func printField(label string, format string, args ...interface{}) {
	fmt.Printf("  %s %s\n", labelColor.Sprintf("%-14s", label+":"), fmt.Sprintf(format, args...))
}
