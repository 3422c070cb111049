package tavla

// Client is a connection to the server over any transport.
type Client interface {
	Address() string
	HandleReadWrite()
	Write(message []byte)
	Terminate(reason string)
	Terminated() bool
}
