package adaptor

func InboundRefs(conn *Connection) int64 {
	return conn.inbound.Refs()
}

func FuturesInboundRefs(f *Futures) int64 {
	return f.inbound.Refs()
}
