package connection

type errorType string

func (e errorType) Error() string {
	return string(e)
}

// ErrBufferFull indicates a read filled the fixed receive buffer
// without yielding a complete request frame.
const ErrBufferFull = errorType("connection: read buffer full without a complete frame")
