// Package analysis implements the CPU-bound dataset analysis: counting set
// and clear bits across a payload.
package analysis

import (
	"encoding/binary"
	"math/bits"
	"runtime"

	"golang.org/x/sys/cpu"
)

// BitsPerByte is the number of bits counted for every payload byte.
const BitsPerByte = 8

const (
	wordBytes = 8
	wordBits  = wordBytes * BitsPerByte
)

// Counts is the result of analysing one payload.
type Counts struct {
	Ones  uint64
	Zeros uint64
}

// Add returns the element-wise sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{Ones: c.Ones + o.Ones, Zeros: c.Zeros + o.Zeros}
}

// Total returns the number of bits counted.
func (c Counts) Total() uint64 {
	return c.Ones + c.Zeros
}

// Analyze counts the set bits and the clear bits of every byte in payload.
//
// The payload is walked twice, once per counter. The passes are kept
// separate so each dataset costs a predictable amount of CPU time on the
// blocking lane.
func Analyze(payload []byte) Counts {
	return Counts{Ones: countOnes(payload), Zeros: countZeros(payload)}
}

// countOnes sums set bits eight bytes at a time, then over the tail.
func countOnes(payload []byte) uint64 {
	var n uint64
	i := 0
	for ; i+wordBytes <= len(payload); i += wordBytes {
		n += uint64(bits.OnesCount64(binary.LittleEndian.Uint64(payload[i:])))
	}
	for ; i < len(payload); i++ {
		n += uint64(bits.OnesCount8(payload[i]))
	}
	return n
}

func countZeros(payload []byte) uint64 {
	var n uint64
	i := 0
	for ; i+wordBytes <= len(payload); i += wordBytes {
		n += uint64(wordBits - bits.OnesCount64(binary.LittleEndian.Uint64(payload[i:])))
	}
	for ; i < len(payload); i++ {
		n += uint64(BitsPerByte - bits.OnesCount8(payload[i]))
	}
	return n
}

// AnalyzeString is Analyze over the bytes of s.
func AnalyzeString(s string) Counts {
	return Analyze([]byte(s))
}

// HardwarePopcount reports whether the word loop of Analyze runs on a
// population count instruction. On amd64 bits.OnesCount64 uses POPCNT
// when the CPU has it; on arm64 it lowers to the ASIMD VCNT sequence.
// Other architectures report false.
func HardwarePopcount() bool {
	switch runtime.GOARCH {
	case "amd64":
		return cpu.X86.HasPOPCNT
	case "arm64":
		return cpu.ARM64.HasASIMD
	}
	return false
}
