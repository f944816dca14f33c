package engine

// advanceTurn moves the current seat step places around the ring. The turn
// counter goes up once each time the seat index wraps back to 0. The phase
// state of the previous player is cleared.
func advanceTurn(state *GameState, step int) {
	n := len(state.Players)
	next := state.Current + step
	state.Turn += next / n
	state.Current = next % n
	state.Phase.next()
}
