//go:build gomock || generate

package quicconn

//go:generate sh -c "go run go.uber.org/mock/mockgen -typed -build_flags=\"-tags=gomock\" -package quicconn -self_package github.com/quic-go/quicconn -destination mock_packet_writer_test.go github.com/quic-go/quicconn PacketWriter"

//go:generate sh -c "go run go.uber.org/mock/mockgen -typed -build_flags=\"-tags=gomock\" -package quicconn -self_package github.com/quic-go/quicconn -destination mock_connection_events_test.go github.com/quic-go/quicconn ConnectionEvents"

//go:generate sh -c "go run go.uber.org/mock/mockgen -typed -build_flags=\"-tags=gomock\" -package quicconn -self_package github.com/quic-go/quicconn -destination mock_send_algorithm_test.go github.com/quic-go/quicconn SendAlgorithm"
type SendAlgorithm = sendAlgorithm
