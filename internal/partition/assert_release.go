//go:build !aotc_debug

package partition

// DebugAssertions reports whether internal-consistency checks panic.
const DebugAssertions = false

func debugFail(string, ...any) {}
