//go:build !js
// +build !js

package tlsbench

import (
	"golang.org/x/sys/cpu"
)

// Check the cpu flags for each platform that has optimized GCM implementations.
// Worst case, these variables will just all be false.
var (
	hasGCMAsmAMD64 = cpu.X86.HasAES && cpu.X86.HasPCLMULQDQ
	hasGCMAsmARM64 = cpu.ARM64.HasAES && cpu.ARM64.HasPMULL
	// Keep in sync with crypto/aes/cipher_s390x.go.
	hasGCMAsmS390X = cpu.S390X.HasAES && cpu.S390X.HasAESCBC && cpu.S390X.HasAESCTR && (cpu.S390X.HasGHASH || cpu.S390X.HasAESGCM)

	hasGCMAsm = hasGCMAsmAMD64 || hasGCMAsmARM64 || hasGCMAsmS390X
)

// AESGCMAccelerated reports whether this machine runs AES-GCM with hardware
// instructions. Throughput numbers from machines where this differs are not
// comparable.
func AESGCMAccelerated() bool {
	return hasGCMAsm
}
