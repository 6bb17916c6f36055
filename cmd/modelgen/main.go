// Command modelgen turns field definitions into enabled module type
// definitions and asks the process supervisor to reload the host.
package main

func main() {
	Execute()
}
