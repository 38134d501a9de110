package bits

import (
	"fmt"
	"time"
)

// BCDDate decodes an ISDB-Tb/DVB 40-bit date-time field: a 16-bit Modified
// Julian Date followed by 24 bits of BCD-encoded hour/minute/second (the
// layout used by TDT/TOT). The algorithm is the one documented in ETSI EN
// 300 468 Annex C; only the arithmetic is reused, not any source text.
func BCDDate(b []byte) (time.Time, error) {
	if len(b) < 5 {
		return time.Time{}, fmt.Errorf("bits: BCD date needs 5 bytes, got %d", len(b))
	}
	mjd := int(Uint16(b[0:2]))

	hour := bcdByteToDecimal(b[2])
	minute := bcdByteToDecimal(b[3])
	second := bcdByteToDecimal(b[4])

	// MJD to Gregorian (ETSI EN 300 468 Annex C).
	yy := int((float64(mjd) - 15078.2) / 365.25)
	mm := int((float64(mjd) - 14956.1 - float64(int(float64(yy)*365.25))) / 30.6001)
	day := mjd - 14956 - int(float64(yy)*365.25) - int(float64(mm)*30.6001)
	var k int
	if mm == 14 || mm == 15 {
		k = 1
	}
	year := yy + k + 1900
	month := mm - 1 - k*12

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("bits: invalid MJD %d decodes to %04d-%02d-%02d", mjd, year, month, day)
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), nil
}

func bcdByteToDecimal(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

// ISO8601 renders t the way numeric leaves render BCD dates per the
// filesystem's content-rendering rules.
func ISO8601(t time.Time) string {
	return t.Format("2006-01-02T15:04:05Z")
}
