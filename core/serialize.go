package core

// Tagged binary serialization: every top-level value written for storage
// or network transfer is framed as magicPrefix + tag + ":" + body. A
// reader must consume exactly the tag it expects, then the body, then
// confirm nothing is left over - a mismatched tag or trailing bytes is
// always a decode error, never a silent partial read.
//
// Only fixed-shape top-level types get a decoder here (Address,
// TokenType, CoinInfo, and raw hash-identified values). AlignedValue's
// existing BinaryRepr - reused unmodified from the hashing path, since
// changing it would change every commitment and hash already derived from
// it - writes its Alignment after its Strings, so the number of strings
// to read isn't known until the alignment trails them. That shape hashes
// fine but doesn't stream-decode unambiguously, so general StateValue/
// AlignedValue wire decode is out of scope here; containers persist
// through the arena's own body+children encoding instead.

const tagMagic = "shielded-ledger:"

func frameTagged(tag string, body []byte) []byte {
	w := NewHashWriter()
	w.WriteBytes([]byte(tagMagic))
	w.WriteBytes([]byte(tag))
	w.WriteByte(':')
	w.WriteBytes(body)
	return w.Bytes()
}

// unframeTagged strips the magic prefix and the expected tag, returning
// the remaining body bytes. The caller is still responsible for checking
// it consumed the whole body (see the Done() call in every Decode* below).
func unframeTagged(data []byte, expectedTag string) ([]byte, error) {
	prefix := tagMagic + expectedTag + ":"
	if len(data) < len(prefix) || string(data[:len(prefix)]) != prefix {
		return nil, wrapErr(KindDecode, "tag_mismatch", ErrTagMismatch)
	}
	return data[len(prefix):], nil
}

// --- Address -----------------------------------------------------------

const tagAddress = "address[v1]"

func SerializeAddress(a Address) []byte {
	w := NewHashWriter()
	w.WriteBytes(a[:])
	return frameTagged(tagAddress, w.Bytes())
}

func DeserializeAddress(data []byte) (Address, error) {
	body, err := unframeTagged(data, tagAddress)
	if err != nil {
		return Address{}, err
	}
	r := NewHashReader(body)
	h, err := r.ReadHash()
	if err != nil {
		return Address{}, err
	}
	if !r.Done() {
		return Address{}, wrapErr(KindDecode, "trailing_bytes", ErrTrailingBytes)
	}
	return Address(h), nil
}

// --- TokenType -----------------------------------------------------------

const tagTokenType = "token-type[v1]"

func SerializeTokenType(t TokenType) []byte {
	w := NewHashWriter()
	t.BinaryRepr(w)
	return frameTagged(tagTokenType, w.Bytes())
}

func DeserializeTokenType(data []byte) (TokenType, error) {
	body, err := unframeTagged(data, tagTokenType)
	if err != nil {
		return TokenType{}, err
	}
	r := NewHashReader(body)
	kindByte, err := r.ReadByte()
	if err != nil {
		return TokenType{}, err
	}
	id, err := r.ReadHash()
	if err != nil {
		return TokenType{}, err
	}
	if !r.Done() {
		return TokenType{}, wrapErr(KindDecode, "trailing_bytes", ErrTrailingBytes)
	}
	return TokenType{Kind: TokenTypeKind(kindByte), ID: id}, nil
}

// --- CoinInfo -----------------------------------------------------------

const tagCoinInfo = "coin-info[v1]"

func SerializeCoinInfo(c CoinInfo) []byte {
	w := NewHashWriter()
	c.BinaryRepr(w)
	return frameTagged(tagCoinInfo, w.Bytes())
}

func DeserializeCoinInfo(data []byte) (CoinInfo, error) {
	body, err := unframeTagged(data, tagCoinInfo)
	if err != nil {
		return CoinInfo{}, err
	}
	r := NewHashReader(body)
	nonce, err := r.ReadHash()
	if err != nil {
		return CoinInfo{}, err
	}
	kindByte, err := r.ReadByte()
	if err != nil {
		return CoinInfo{}, err
	}
	id, err := r.ReadHash()
	if err != nil {
		return CoinInfo{}, err
	}
	value, err := r.ReadU64()
	if err != nil {
		return CoinInfo{}, err
	}
	if !r.Done() {
		return CoinInfo{}, wrapErr(KindDecode, "trailing_bytes", ErrTrailingBytes)
	}
	return CoinInfo{Nonce: nonce, Type: TokenType{Kind: TokenTypeKind(kindByte), ID: id}, Value: value}, nil
}

// --- Transaction hash handle ---------------------------------------------
//
// A Transaction's full wire form is the Intents/ShieldedOffer tree it was
// built from, which the submitter already holds; what a peer or a block
// needs to exchange afterward is its content hash. SerializeTxHash/
// DeserializeTxHash give that identifier the same tagged framing as every
// other wire value instead of passing a bare HashOutput around untagged.

const tagTxHash = "tx-hash[v1]"

func SerializeTxHash(h HashOutput) []byte {
	w := NewHashWriter()
	w.WriteHash(h)
	return frameTagged(tagTxHash, w.Bytes())
}

func DeserializeTxHash(data []byte) (HashOutput, error) {
	body, err := unframeTagged(data, tagTxHash)
	if err != nil {
		return HashOutput{}, err
	}
	r := NewHashReader(body)
	h, err := r.ReadHash()
	if err != nil {
		return HashOutput{}, err
	}
	if !r.Done() {
		return HashOutput{}, wrapErr(KindDecode, "trailing_bytes", ErrTrailingBytes)
	}
	return h, nil
}
