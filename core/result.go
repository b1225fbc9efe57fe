package core

import "github.com/tolelom/scorechain/crypto"

// resultDomain separates result hashes from every other hash on the chain.
const resultDomain = "scorechain/result/v1"

// ResultHash is the digest a game server signs for one outcome. Every field
// is length-prefixed, so no two distinct submissions share a hash.
func ResultHash(player, gameID string, score uint64, win bool, timestamp int64, nonce uint64) string {
	w := byte(0)
	if win {
		w = 1
	}
	return crypto.HashFields(resultDomain,
		[]byte(player),
		[]byte(gameID),
		crypto.Uint64Bytes(score),
		[]byte{w},
		crypto.Uint64Bytes(uint64(timestamp)),
		crypto.Uint64Bytes(nonce),
	)
}

// Hash returns the ResultHash of the payload's signed fields.
func (p *SubmitResultPayload) Hash() string {
	return ResultHash(p.Player, p.GameID, p.Score, p.Win, p.Timestamp, p.Nonce)
}

// SignResult fills in Signature using the game server's result-signing key.
func (p *SubmitResultPayload) SignResult(priv crypto.PrivateKey) {
	p.Signature = crypto.Sign(priv, []byte(p.Hash()))
}

// VerifyResult checks Signature against the game's registered public key.
func (p *SubmitResultPayload) VerifyResult(pub crypto.PublicKey) error {
	return crypto.Verify(pub, []byte(p.Hash()), p.Signature)
}
