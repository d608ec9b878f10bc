// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hostbus adapts periph.io host controllers to the asynchronous
// contracts the mux layer consumes.
//
// periph.io transfers are blocking, so each adapter owns a worker
// goroutine: operations are handed to it over a one-slot channel and the
// completion callback fires from that goroutine once the transfer
// finishes. The one-slot channel mirrors the mux layer's single in-flight
// invariant; a second submission before completion means a broken caller
// and blocks.
//
// Halt an adapter when done with it to release the worker.
package hostbus
