package state

import (
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/settlenet-io/settle-go/common"
)

type sqlSettlement struct {
	Id          int64
	TradeId     string // hex, no 0x prefix
	Maker       string
	Taker       string
	MakerAsset  string
	TakerAsset  string
	MakerAmount string // hex, no 0x prefix; big.Int values survive unchanged
	TakerAmount string
	Proof       string
	Status      string
	CreatedAt   int64
}

// encode converts fields of a Settlement to types storable in the sql db.
func (s *sqlSettlement) encode(r *Settlement) *sqlSettlement {
	s.Id = r.Id
	s.TradeId = r.TradeId.String()[2:]
	s.Maker = common.ByteSliceToPureHexStr(r.Maker.Bytes())
	s.Taker = common.ByteSliceToPureHexStr(r.Taker.Bytes())
	s.MakerAsset = common.ByteSliceToPureHexStr(r.MakerAsset.Bytes())
	s.TakerAsset = common.ByteSliceToPureHexStr(r.TakerAsset.Bytes())
	s.MakerAmount = r.MakerAmount.Text(16)
	s.TakerAmount = r.TakerAmount.Text(16)
	s.Proof = r.Proof.String()[2:]
	s.Status = string(r.Status)
	s.CreatedAt = r.CreatedAt

	return s
}

func (s *sqlSettlement) decode() *Settlement {
	return &Settlement{
		Id:          s.Id,
		TradeId:     ethcommon.Hash(common.HexStrToBytes32(s.TradeId)),
		Maker:       ethcommon.HexToAddress(s.Maker),
		Taker:       ethcommon.HexToAddress(s.Taker),
		MakerAsset:  ethcommon.HexToAddress(s.MakerAsset),
		TakerAsset:  ethcommon.HexToAddress(s.TakerAsset),
		MakerAmount: common.HexStrToBigInt(s.MakerAmount),
		TakerAmount: common.HexStrToBigInt(s.TakerAmount),
		Proof:       ethcommon.Hash(common.HexStrToBytes32(s.Proof)),
		Status:      SettlementStatus(s.Status),
		CreatedAt:   s.CreatedAt,
	}
}

// JSONSettlement is the wire shape served by the reporter.
type JSONSettlement struct {
	Id          int64  `json:"id"`
	TradeId     string `json:"trade_id"`
	Maker       string `json:"maker"`
	Taker       string `json:"taker"`
	MakerAsset  string `json:"maker_asset"`
	TakerAsset  string `json:"taker_asset"`
	MakerAmount string `json:"maker_amount"`
	TakerAmount string `json:"taker_amount"`
	Proof       string `json:"proof,omitempty"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at"`
}

func (r *Settlement) ToJSON() *JSONSettlement {
	j := &JSONSettlement{
		Id:          r.Id,
		TradeId:     r.TradeId.String(),
		Maker:       r.Maker.Hex(),
		Taker:       r.Taker.Hex(),
		MakerAsset:  r.MakerAsset.Hex(),
		TakerAsset:  r.TakerAsset.Hex(),
		MakerAmount: common.BigIntToHexStr(r.MakerAmount),
		TakerAmount: common.BigIntToHexStr(r.TakerAmount),
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
	}
	if r.Proof != (ethcommon.Hash{}) {
		j.Proof = r.Proof.String()
	}
	return j
}
