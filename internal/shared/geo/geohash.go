package geo

import "strings"

// geohash base32 alphabet ('a', 'i', 'l', 'o' excluded).
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// DefaultGeohashPrecision gives ~2.4m cells, enough to treat the hash as a
// stable per-spot spatial key.
const DefaultGeohashPrecision = 9

var base32Map = map[byte]int{}

func init() {
	for i := 0; i < len(base32); i++ {
		base32Map[base32[i]] = i
	}
}

// EncodeGeohash converts a latitude/longitude pair to a geohash string with
// the given precision. Longitude and latitude bits are interleaved, five bits
// per output character.
func EncodeGeohash(lat, lng float64, precision int) string {
	if precision <= 0 {
		precision = DefaultGeohashPrecision
	}
	if precision > 12 {
		precision = 12
	}

	minLat, maxLat := -90.0, 90.0
	minLng, maxLng := -180.0, 180.0

	var hash strings.Builder
	isEven := true
	bit := 0
	ch := 0

	for hash.Len() < precision {
		if isEven {
			mid := (minLng + maxLng) / 2
			if lng >= mid {
				ch |= 1 << (4 - bit)
				minLng = mid
			} else {
				maxLng = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				minLat = mid
			} else {
				maxLat = mid
			}
		}
		isEven = !isEven
		bit++
		if bit == 5 {
			hash.WriteByte(base32[ch])
			bit = 0
			ch = 0
		}
	}

	return hash.String()
}

// DecodeGeohash returns the center of the cell encoded by hash. Unknown
// characters are skipped.
func DecodeGeohash(hash string) (lat, lng float64) {
	minLat, maxLat := -90.0, 90.0
	minLng, maxLng := -180.0, 180.0
	isEven := true

	for i := 0; i < len(hash); i++ {
		cd, ok := base32Map[hash[i]]
		if !ok {
			continue
		}
		for j := 4; j >= 0; j-- {
			bit := (cd >> j) & 1
			if isEven {
				mid := (minLng + maxLng) / 2
				if bit == 1 {
					minLng = mid
				} else {
					maxLng = mid
				}
			} else {
				mid := (minLat + maxLat) / 2
				if bit == 1 {
					minLat = mid
				} else {
					maxLat = mid
				}
			}
			isEven = !isEven
		}
	}

	return (minLat + maxLat) / 2, (minLng + maxLng) / 2
}
