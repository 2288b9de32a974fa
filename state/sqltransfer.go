package state

import (
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/settlenet-io/settle-go/common"
)

type sqlTransfer struct {
	Id          int64
	Sender      string // hex, no 0x prefix
	Asset       string
	Amount      string // hex, no 0x prefix; big.Int values survive unchanged
	DestChain   string
	DestAddress string
	Status      string
	CreatedAt   int64
}

func (s *sqlTransfer) encode(t *Transfer) *sqlTransfer {
	s.Id = t.Id
	s.Sender = common.ByteSliceToPureHexStr(t.Sender.Bytes())
	s.Asset = common.ByteSliceToPureHexStr(t.Asset.Bytes())
	s.Amount = t.Amount.Text(16)
	s.DestChain = t.DestChain
	s.DestAddress = t.DestAddress
	s.Status = string(t.Status)
	s.CreatedAt = t.CreatedAt

	return s
}

func (s *sqlTransfer) decode() *Transfer {
	return &Transfer{
		Id:          s.Id,
		Sender:      ethcommon.HexToAddress(s.Sender),
		Asset:       ethcommon.HexToAddress(s.Asset),
		Amount:      common.HexStrToBigInt(s.Amount),
		DestChain:   s.DestChain,
		DestAddress: s.DestAddress,
		Status:      TransferStatus(s.Status),
		CreatedAt:   s.CreatedAt,
	}
}

// JSONTransfer is the wire shape served by the reporter.
type JSONTransfer struct {
	Id          int64  `json:"id"`
	Sender      string `json:"sender"`
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
	DestChain   string `json:"dest_chain"`
	DestAddress string `json:"dest_address"`
	Status      string `json:"status"`
	Completed   bool   `json:"completed"`
	CreatedAt   int64  `json:"created_at"`
}

func (t *Transfer) ToJSON() *JSONTransfer {
	return &JSONTransfer{
		Id:          t.Id,
		Sender:      t.Sender.Hex(),
		Asset:       t.Asset.Hex(),
		Amount:      common.BigIntToHexStr(t.Amount),
		DestChain:   t.DestChain,
		DestAddress: t.DestAddress,
		Status:      string(t.Status),
		Completed:   t.Completed(),
		CreatedAt:   t.CreatedAt,
	}
}
