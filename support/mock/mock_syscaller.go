package mock

import (
	"fmt"

	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/crypto"

	"github.com/vestral/vesting-actors/actors/runtime"
)

type VerifyFunc func(signature crypto.Signature, signer addr.Address, plaintext []byte) error
type HasherFunc func(data []byte) [32]byte

type syscaller struct {
	SignatureVerifier VerifyFunc
	Hasher            HasherFunc
}

// Interface methods
func (s *syscaller) VerifySignature(sig crypto.Signature, signer addr.Address, plaintext []byte) error {
	if s.SignatureVerifier == nil {
		s.PanicOnUnsetFunc("SignatureVerifier")
	}
	return s.SignatureVerifier(sig, signer, plaintext)
}

func (s *syscaller) HashBlake2b(data []byte) [32]byte {
	if s.Hasher == nil {
		s.PanicOnUnsetFunc("Hasher")
	}
	return s.Hasher(data)
}

func (s *syscaller) PanicOnUnsetFunc(unsetFuncName string) {
	panic(fmt.Sprintf("no %s set", unsetFuncName))
}

var _ runtime.Syscalls = &syscaller{}
