package quicconn

// The packetFlusher batches the packets generated while processing an event into as few datagrams as possible.
// Flushers nest: only the outermost one flushes the coalesced packet and rearms the alarms.
//
//	defer c.newFlusher().Close()
type packetFlusher struct {
	conn *Connection
}

func (c *Connection) newFlusher() *packetFlusher {
	c.flusherDepth++
	return &packetFlusher{conn: c}
}

// Close ends the flusher's scope. It must be called exactly once.
func (f *packetFlusher) Close() {
	c := f.conn
	f.conn = nil
	if c == nil {
		return
	}
	c.flusherDepth--
	if c.flusherDepth > 0 || !c.connected {
		return
	}
	c.flushCoalescedPacket()
	if c.connected {
		c.rearmAlarms()
	}
}
