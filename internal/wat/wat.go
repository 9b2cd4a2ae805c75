package wat

import (
	"github.com/wippyai/wasm-bridge/internal/wat/internal/encoder"
	"github.com/wippyai/wasm-bridge/internal/wat/internal/parser"
	"github.com/wippyai/wasm-bridge/internal/wat/internal/token"
)

// Compile parses source and returns the encoded module.
func Compile(source string) ([]byte, error) {
	p := parser.New(token.Tokenize(source))
	mod, err := p.Parse()
	if err != nil {
		return nil, err
	}
	return encoder.Encode(mod), nil
}

// MustCompile is like Compile but panics on error. It is meant for fixed
// sources known to be valid.
func MustCompile(source string) []byte {
	bin, err := Compile(source)
	if err != nil {
		panic("wat: " + err.Error())
	}
	return bin
}
