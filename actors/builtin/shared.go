package builtin

import (
	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/vestral/vesting-actors/actors/runtime"
)

///// Code shared by multiple built-in actors. /////

// Propagates a failed send by aborting the current method with the same exit code.
func RequireSuccess(rt runtime.Runtime, e exitcode.ExitCode, msg string, args ...interface{}) {
	if !e.IsSuccess() {
		rt.Abortf(e, msg, args...)
	}
}

// Aborts with a formatted message and exit code if err is not nil.
func RequireNoErr(rt runtime.Runtime, err error, code exitcode.ExitCode, msg string, args ...interface{}) {
	if err != nil {
		rt.Abortf(code, msg+": %s", append(args, err)...)
	}
}
