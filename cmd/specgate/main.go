// Command specgate serves operations described by JSON specs over HTTP.
package main

func main() {
	Execute()
}
