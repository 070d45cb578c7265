// Package turnrelay embeds an optional STUN/TURN relay so small
// deployments can run NAT traversal from the same binary. Media never
// touches the signaling core; this is a separate UDP listener.
package turnrelay

import (
	"errors"
	"fmt"
	"net"

	"github.com/pion/turn/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rehearsal/internal/config"
)

var ErrNoPublicIP = errors.New("turn relay requires public_ip")

type Relay struct {
	server *turn.Server
}

// Start brings the relay up with long-term credentials from config.
func Start(cfg config.TURNConfig) (*Relay, error) {
	relayIP := net.ParseIP(cfg.PublicIP)
	if relayIP == nil {
		return nil, ErrNoPublicIP
	}

	udpListener, err := net.ListenPacket("udp4", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("turn listen: %w", err)
	}

	authKey := turn.GenerateAuthKey(cfg.Username, cfg.Realm, cfg.Password)
	server, err := turn.NewServer(turn.ServerConfig{
		Realm: cfg.Realm,
		AuthHandler: func(username, realm string, srcAddr net.Addr) ([]byte, bool) {
			if username != cfg.Username {
				return nil, false
			}
			return authKey, true
		},
		PacketConnConfigs: []turn.PacketConnConfig{
			{
				PacketConn: udpListener,
				RelayAddressGenerator: &turn.RelayAddressGeneratorStatic{
					RelayAddress: relayIP,
					Address:      "0.0.0.0",
				},
			},
		},
	})
	if err != nil {
		_ = udpListener.Close()
		return nil, fmt.Errorf("turn server: %w", err)
	}

	log.Info().Str("module", "turnrelay").Str("listen", cfg.Listen).Str("realm", cfg.Realm).Msg("TURN relay started")
	return &Relay{server: server}, nil
}

func (r *Relay) Close() error {
	if r == nil || r.server == nil {
		return nil
	}
	log.Info().Str("module", "turnrelay").Msg("TURN relay stopped")
	return r.server.Close()
}
