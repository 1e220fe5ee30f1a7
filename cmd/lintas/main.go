// Command lintas is a thin command line front end for the lintas client.
package main

func main() {
	Execute()
}
