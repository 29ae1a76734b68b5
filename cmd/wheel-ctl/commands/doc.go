// Package commands defines the wheel-ctl CLI.
//
// Commands
//
//   - encrypt, decrypt   Transform text offline with a given shift
//   - crack              List every candidate decryption of a ciphertext
//   - shift              Select a shift on the running wheel
//   - step               Move the running wheel by some detents
//   - mode               Set or toggle encrypt/decrypt on the running wheel
//   - input              Replace the wheel's message text
//   - copy               Ask the wheel to copy its output
//   - spin               Drive a synthetic drag gesture through the wheel
//   - state              Print the wheel's current state
//
// # Implementation
//
// Commands that talk to the daemon send {type,data} event envelopes over its
// unix socket, one JSON object per line, and expect {"status":"ok"} back. The
// wire types are duplicated here so the tool builds without the daemon's
// package. state reads GET /state over HTTP instead, since the socket only
// acknowledges events.
package commands
