//go:build aotc_debug

package partition

import "fmt"

// DebugAssertions reports whether internal-consistency checks panic.
const DebugAssertions = true

func debugFail(format string, args ...any) {
	panic("partition: internal consistency failure: " + fmt.Sprintf(format, args...))
}
