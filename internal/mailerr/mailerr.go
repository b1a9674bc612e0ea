// Package mailerr defines the error taxonomy shared by the protocol clients,
// the POP3 server and the MIME codec.
//
// Every error returned by those packages wraps one of the sentinels below,
// so callers classify failures with errors.Is.
package mailerr

import "errors"

var (
	// ErrConnectionTimeout is returned when every connect attempt failed.
	ErrConnectionTimeout = errors.New("connection timeout")

	// ErrProtocol is returned when a peer sends an unexpected greeting or status.
	ErrProtocol = errors.New("protocol error")

	// ErrAuth is returned when the peer rejects the configured credentials.
	ErrAuth = errors.New("authentication failed")

	// ErrIO wraps socket and file failures.
	ErrIO = errors.New("i/o error")

	// ErrEncoding is returned when content cannot be represented in the
	// requested transfer encoding (non-ASCII input to 7bit).
	ErrEncoding = errors.New("encoding error")

	// ErrMissingAttachment is returned when a multipart message has no parts.
	ErrMissingAttachment = errors.New("multipart message without parts")

	// ErrCommandRejected is returned when a single-line POP3 command is declined.
	ErrCommandRejected = errors.New("command rejected")

	// ErrSession is returned by the POP3 server when a command arrives before USER.
	ErrSession = errors.New("session not authenticated")

	// ErrEncode is returned by the SMTP client when the message could not be
	// encoded after DATA was issued. It is joined with the codec's own error.
	ErrEncode = errors.New("message encode failed")

	// ErrClientClosed is returned by a client used after Quit.
	ErrClientClosed = errors.New("client closed")
)
