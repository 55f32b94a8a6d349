//go:build linux
// +build linux

package memory

//go:generate clang -O2 -g -target bpf -D__TARGET_ARCH_x86 -c ../../../bpf/hard_faults.c -o ../../../bpf/hard_faults.o
