package protocol

import "time"

// A ByteCount in QUIC
type ByteCount int64

// MaxByteCount is the maximum value of a ByteCount
const MaxByteCount = ByteCount(1<<62 - 1)

// InvalidByteCount is an invalid byte count
const InvalidByteCount ByteCount = -1

// MinInitialPacketSize is the minimum size an Initial packet is required to have.
const MinInitialPacketSize = 1200

// InitialPacketSize is the initial (before Path MTU discovery) maximum packet size used.
const InitialPacketSize = 1252

// MaxPacketBufferSize maximum packet size of any QUIC packet, based on
// ethernet's max size, minus the IP and UDP headers. IPv6 has a 40 byte header,
// UDP adds an additional 8 bytes.  This is a total overhead of 48 bytes.
// Ethernet's max packet size is 1500 bytes,  1500 - 48 = 1452.
const MaxPacketBufferSize = 1452

// DefaultAmplificationFactor is the factor by which a server may exceed the
// bytes received from an unvalidated address.
const DefaultAmplificationFactor = 3

// DefaultMaxUndecryptablePackets limits the number of undecryptable packets that are queued.
const DefaultMaxUndecryptablePackets = 10

// DefaultMaxTrackedPackets is the maximum distance between the largest sent
// and the least unacked packet number.
const DefaultMaxTrackedPackets = 10000

// DefaultActiveConnectionIDLimit is the default active_connection_id_limit transport parameter.
const DefaultActiveConnectionIDLimit = 2

// MaxActiveConnectionIDs is the number of connection IDs that we're storing.
const MaxActiveConnectionIDs = 4

// MaxClientHellos is the number of client hellos a server answers before giving up.
const MaxClientHellos = 20

// KeyUpdateConfidentialityLimitOffset is how far ahead of the confidentiality limit a key update is started.
const KeyUpdateConfidentialityLimitOffset = 1000

// MaxPathValidationRetries is the number of PATH_CHALLENGE retransmissions before validation fails.
const MaxPathValidationRetries = 2

// MaxPathChallengesPerPacket is the number of PATH_CHALLENGE frames a packet may trigger a response for.
const MaxPathChallengesPerPacket = 1

// PathChallengeRetryTimeoutNonDefault is the retry timeout for probes sent on a path other than the default one.
const PathChallengeRetryTimeoutNonDefault = 3 * DefaultInitialRTT

// DefaultInitialRTT is the RTT used before the first RTT sample is taken.
const DefaultInitialRTT = 100 * time.Millisecond

// TimerGranularity is the granularity of the timer
const TimerGranularity = time.Millisecond

// MaxAckDelay is the maximum time by which we delay sending ACKs.
const MaxAckDelay = 25 * time.Millisecond

// DefaultAckDelayExponent is the default ack delay exponent
const DefaultAckDelayExponent = 3

// MaxAckDelayExponent is the maximum ack delay exponent
const MaxAckDelayExponent = 20

// PacketsBeforeAck is the number of ack-eliciting packets received before an ACK is sent.
const PacketsBeforeAck = 2

// DefaultIdleTimeout is the default idle timeout
const DefaultIdleTimeout = 30 * time.Second

// DefaultHandshakeIdleTimeout is the default handshake idle timeout
const DefaultHandshakeIdleTimeout = 5 * time.Second

// MinRemoteIdleTimeout is the minimum value that we accept for the remote idle timeout
const MinRemoteIdleTimeout = 5 * time.Second

// DefaultNumPTOsForBlackholeDetection is the number of PTOs without forward progress before the path is considered a blackhole.
const DefaultNumPTOsForBlackholeDetection = 3

// DefaultECNPTOLimit is the number of PTOs without an acknowledged ECN-marked packet before marking stops.
const DefaultECNPTOLimit = 3

// DefaultReleaseTimeIntoFuture is the look-ahead window within which a paced packet is sent immediately.
const DefaultReleaseTimeIntoFuture = time.Millisecond

// KeyDiscardPTOs is the number of PTOs old keys are retained after a key update or the first 1-RTT packet.
const KeyDiscardPTOs = 3

// MinStatelessResetSize is the minimum size of a stateless reset packet that we send
const MinStatelessResetSize = 1 /* first byte */ + 20 /* max. conn ID length */ + 4 /* max. packet number length */ + 1 /* min. payload length */ + 16 /* token */

// MaxAckFrameSize is the maximum size for an ACK frame that we write
// Due to the varint encoding, ACK frames can grow (almost) indefinitely large.
// The MaxAckFrameSize should be large enough to encode many ACK range,
// but must ensure that a maximum size ACK frame fits into one packet.
const MaxAckFrameSize ByteCount = 1000

// MaxNumAckRanges is the maximum number of ACK ranges that we send in an ACK frame.
const MaxNumAckRanges = 32
