package swarm

// Chunk is an immutable, content-addressed unit of storage.
type Chunk struct {
	addr  Address
	data  []byte
	stamp []byte
}

// NewChunk builds a chunk from its address and its span-prefixed data
func NewChunk(addr Address, data []byte) *Chunk {
	return &Chunk{addr: addr, data: data}
}

// Address of the chunk
func (c *Chunk) Address() Address {
	return c.addr
}

// Data returns the span followed by the payload
func (c *Chunk) Data() []byte {
	return c.data
}

// Span returns the 8 bytes span header
func (c *Chunk) Span() []byte {
	return c.data[:SpanSize]
}

// Payload returns the chunk data after the span
func (c *Chunk) Payload() []byte {
	return c.data[SpanSize:]
}

// Stamp returns the marshalled postage stamp, if any
func (c *Chunk) Stamp() []byte {
	return c.stamp
}

// WithStamp returns a copy of the chunk with a stamp attached
func (c *Chunk) WithStamp(stamp []byte) *Chunk {
	return &Chunk{addr: c.addr, data: c.data, stamp: stamp}
}

// Validate the chunk size
func (c *Chunk) Validate() error {
	if len(c.data) < SpanSize || len(c.data) > ChunkWithSpanSize {
		return ErrInvalidChunk.WrapMessage("%s has %d bytes", c.addr, len(c.data))
	}
	return nil
}

func (c *Chunk) String() string {
	return c.addr.String()
}
