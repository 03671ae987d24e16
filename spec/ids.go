package spec

// DID 是資料集在 catalog 內的唯一識別碼。
type DID uint

// DefaultSeed 為資料集未指定 seed 時使用的預設值。
const DefaultSeed int64 = 42
