package state

import "strings"

var (
	strZeroBytes32 = strings.Repeat("0", 64)
	strZeroBytes20 = strings.Repeat("0", 40)

	// table that stores the life cycle of a settlement between a maker
	// and a taker. Append-only: rows are never deleted, only their
	// status/proof columns advance.
	settlementTable = `CREATE TABLE IF NOT EXISTS settlement (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tradeId CHAR(64) NOT NULL,
		maker CHAR(40) NOT NULL,
		taker CHAR(40) NOT NULL,
		makerAsset CHAR(40) NOT NULL,
		takerAsset CHAR(40) NOT NULL,
		makerAmount VARCHAR(64) NOT NULL,
		takerAmount VARCHAR(64) NOT NULL,
		proof CHAR(64),
		status VARCHAR(10) NOT NULL,
		createdAt BIGINT NOT NULL,
		CONSTRAINT chk_status CHECK (status IN ('pending', 'completed', 'refunded')),
		CONSTRAINT chk_makerAmount CHECK (makerAmount != '' AND makerAmount != '0'),
		CONSTRAINT chk_takerAmount CHECK (takerAmount != '' AND takerAmount != '0'),
		CONSTRAINT chk_tradeId CHECK (tradeId != '` + strZeroBytes32 + `'),
		CONSTRAINT chk_maker CHECK (maker != '` + strZeroBytes20 + `'),
		CONSTRAINT chk_taker CHECK (taker != '` + strZeroBytes20 + `'),
		CONSTRAINT chk_proof CHECK (proof IS NULL OR proof != '` + strZeroBytes32 + `')
	);`

	// table that stores the life cycle of an outbound cross-chain
	// transfer. Also append-only.
	transferTable = `CREATE TABLE IF NOT EXISTS transfer (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender CHAR(40) NOT NULL,
		asset CHAR(40) NOT NULL,
		amount VARCHAR(64) NOT NULL,
		destChain VARCHAR(64) NOT NULL,
		destAddress VARCHAR(128) NOT NULL,
		status VARCHAR(10) NOT NULL,
		createdAt BIGINT NOT NULL,
		CONSTRAINT chk_status CHECK (status IN ('pending', 'completed', 'refunded')),
		CONSTRAINT chk_amount CHECK (amount != '' AND amount != '0'),
		CONSTRAINT chk_sender CHECK (sender != '` + strZeroBytes20 + `'),
		CONSTRAINT chk_destChain CHECK (destChain != '')
	);`

	// table stores key-value pairs. Both key and value are a 32-byte hex
	// string without prefix '0x'
	kvTable = `CREATE TABLE IF NOT EXISTS kv (
		key CHAR(64) PRIMARY KEY NOT NULL,
		value CHAR(64) NOT NULL
	);`

	settlementInsertParamList = " tradeId, maker, taker, makerAsset, takerAsset, makerAmount, takerAmount, status, createdAt "
	transferInsertParamList   = " sender, asset, amount, destChain, destAddress, status, createdAt "
)
