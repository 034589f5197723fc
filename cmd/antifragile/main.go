// Command antifragile classifies payoff curves and runs the adaptive pricing
// service whose live metrics it classifies.
package main

func main() {
	Execute()
}
