package protocol

// A StatelessResetToken is a stateless reset token.
type StatelessResetToken [16]byte
