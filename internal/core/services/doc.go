// Package services implements the driving port interfaces with the
// application's core logic.
//
// Services orchestrate between driven ports (vector index, chat model,
// session store) and contain the behavior that makes lectern lectern:
// the tool-calling answer loop and the course ingestion pipeline. They
// hold no I/O of their own; everything reaches the outside world through
// an injected port.
package services
