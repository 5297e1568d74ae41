// Package settings confirms that a device ended a reset with the settings
// the host asked for.
//
// The Verifier compares the reported Features with the request, then
// checks behaviour: a PIN-protected Ping must raise a PIN challenge exactly
// when PIN protection is on, and a passphrase-protected Ping must raise a
// passphrase challenge exactly when passphrase protection is on. Each
// challenge is cancelled, and the settings are read again to make sure
// the cancelled operation changed nothing.
package settings
