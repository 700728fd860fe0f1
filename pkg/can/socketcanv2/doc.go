// Package socketcanv2 implements a controller over a raw AF_CAN socket.
// It is only available on linux, importing it elsewhere registers nothing.
package socketcanv2
