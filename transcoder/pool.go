package transcoder

import "sync"

const (
	// Pool limits to prevent memory bloat
	stackMaxCap  = 1024
	stackInitCap = 16
)

// flat value buffers for lowering arguments and results
var stackPool = sync.Pool{
	New: func() any {
		buf := make([]uint64, 0, stackInitCap)
		return &buf
	},
}

// GetStack returns an empty flat value buffer from the pool.
func GetStack() *[]uint64 {
	return stackPool.Get().(*[]uint64)
}

// PutStack returns buf to the pool. buf must not be used afterwards.
func PutStack(buf *[]uint64) {
	if buf == nil || cap(*buf) > stackMaxCap {
		return // reject oversized
	}
	*buf = (*buf)[:0]
	stackPool.Put(buf)
}
