// main.go
package main

import "ipLensGo/cmd"

func main() {
	cmd.Execute()
}
