package mac

import (
	"github.com/rs/zerolog"
)

// LogService accepts every request and only logs it. It stands in for the
// MAC layer when no radio is attached.
type LogService struct {
	log zerolog.Logger
}

func NewLogService(logger zerolog.Logger) *LogService {
	return &LogService{log: logger.With().Str("component", "mac").Logger()}
}

func (s *LogService) ConnectRequest(id MBCID, params ConnParams) error {
	s.log.Info().
		Uint32("mcei", id.MCEI).
		Str("mci", id.MCI().String()).
		Uint8("service", params.Service).
		Uint8("slot", params.Slot).
		Msg("mac_con_req")
	return nil
}

func (s *LogService) DisconnectRequest(mcei uint32) error {
	s.log.Info().Uint32("mcei", mcei).Msg("mac_dis_req")
	return nil
}

func (s *LogService) EncryptionKeyRequest(mcei uint32, _ uint64) error {
	s.log.Info().Uint32("mcei", mcei).Msg("mac_enc_key_req")
	return nil
}

func (s *LogService) EncryptionStateRequest(mcei uint32, state CipherState) error {
	s.log.Info().Uint32("mcei", mcei).Stringer("state", state).Msg("mac_enc_eks_req")
	return nil
}

func (s *LogService) DataRequest(mcei uint32, ch DataChannel, payload []byte) error {
	s.log.Debug().Uint32("mcei", mcei).Stringer("chan", ch).Int("len", len(payload)).Msg("mac_co_data_req")
	return nil
}
