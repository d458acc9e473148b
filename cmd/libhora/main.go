// Command libhora builds the C shared library exposing the process-wide
// index registry:
//
//	go build -buildmode=c-shared -o libhora.so ./cmd/libhora
//
// Strings returned to the caller are allocated with malloc and must be
// released with hora_free_string / hora_free_strings.
package main

/*
#include <stdlib.h>
#include <stddef.h>
#include <string.h>

typedef struct {
	char** ptr;
	size_t len;
	size_t cap;
} hora_strings;
*/
import "C"

import (
	"unsafe"

	"github.com/hupe1980/horago/internal/bridge"
)

var surface = bridge.New(nil)

func goBytes(s *C.char) []byte {
	if s == nil {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(s), C.int(C.strlen(s)))
}

// goFloats views a foreign buffer; bridge copies it before the call returns.
func goFloats(p *C.double, n C.size_t) []float64 {
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(p)), int(bridge.Dimension(uint64(n))))
}

//export hora_new_index
func hora_new_index(name *C.char, dimension C.size_t) {
	surface.NewIndex(goBytes(name), uint64(dimension))
}

//export hora_add
func hora_add(name *C.char, features *C.double, label *C.char, dimension C.size_t) {
	surface.Add(goBytes(name), goFloats(features, dimension), goBytes(label))
}

//export hora_build
func hora_build(name, metric *C.char) *C.char {
	return C.CString(surface.Build(goBytes(name), goBytes(metric)))
}

//export hora_search
func hora_search(name *C.char, k C.size_t, features *C.double, dimension C.size_t) C.hora_strings {
	labels := surface.Search(goBytes(name), uint64(k), goFloats(features, dimension))

	var out C.hora_strings
	if len(labels) == 0 {
		return out
	}

	ptrSize := C.size_t(unsafe.Sizeof((*C.char)(nil)))
	out.ptr = (**C.char)(C.malloc(C.size_t(len(labels)) * ptrSize))
	out.len = C.size_t(len(labels))
	out.cap = out.len

	slots := unsafe.Slice(out.ptr, len(labels))
	for i, l := range labels {
		slots[i] = C.CString(l)
	}
	return out
}

//export hora_load
func hora_load(name, path *C.char) {
	surface.Load(goBytes(name), goBytes(path))
}

//export hora_dump
func hora_dump(name, path *C.char) {
	surface.Dump(goBytes(name), goBytes(path))
}

//export hora_free_string
func hora_free_string(s *C.char) {
	C.free(unsafe.Pointer(s))
}

//export hora_free_strings
func hora_free_strings(s C.hora_strings) {
	if s.ptr == nil {
		return
	}
	for _, p := range unsafe.Slice(s.ptr, int(s.len)) {
		C.free(unsafe.Pointer(p))
	}
	C.free(unsafe.Pointer(s.ptr))
}

func main() {}
