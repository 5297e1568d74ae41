// Package log provides structured protocol capture for the reset tooling.
//
// Capture is separate from operational logging (slog). A Logger receives an
// Event for every frame, decoded message, handshake state transition and
// error on a link, which is enough to replay what happened during a reset
// without recording any secret material.
//
//	// Console
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// Binary capture, readable with "devreset log"
//	fl, _ := log.NewFileLogger("reset.dlog", log.WithErrorLog(slog.Default()))
//	defer fl.Close()
//	cfg.Logger = log.Combine(log.NewSlogAdapter(slog.Default()), fl)
//
// Message events carry the message type and size only. Entropy, PINs and
// mnemonic words never reach a Logger.
//
// # File Format
//
// Capture files (.dlog) are a stream of CBOR-encoded events with integer
// keys and no framing between records. Reader and Each stream them back;
// a record cut short by a crash surfaces as a decode error, not io.EOF.
package log
