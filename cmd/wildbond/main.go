// Command wildbond runs the adherence-gated autonomy and progression engine.
package main

import "github.com/emberlane/wildbond/cmd/wildbond/root"

func main() {
	root.Execute()
}
