package app

// Frame is a wire-ready event envelope. The relay never inspects it.
type Frame []byte

// Conn is a member's outbound endpoint. Owned by the adapter; the adapter
// must Close() it. TrySend never blocks.
type Conn interface {
	TrySend(Frame) error
	Close()
}
