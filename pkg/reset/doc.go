// Package reset drives the device-reset handshake from the host side.
//
// A Session walks the device through ResetDevice, the optional random
// display confirmation, the optional two-step PIN setup, the entropy
// exchange and two read-back passes of the mnemonic. The host computes the
// expected mnemonic itself from the device's internal entropy (read over
// the debug link) and its own external entropy, and only settles when both
// displayed passes match it word for word.
//
// A word mismatch or an out-of-order message is a ConformanceError or an
// UnexpectedMessageError. Both satisfy errors.Is(err, ErrConformance) and
// are never retried, since a retry would hide a tampering signal. Link
// failures wrap ErrTransport.
//
//	s, err := reset.NewSession(reset.Request{Strength: entropy.Strength256}, reset.Config{
//	    Exchanger: ep,
//	    Debug:     ep.Debug,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := s.Run(ctx); err != nil {
//	    return err
//	}
package reset
