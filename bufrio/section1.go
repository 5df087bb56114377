package bufrio

import "github.com/metaffric/bufr/bitio"

// decodeSection1Edition3 reads the 18-byte edition 2/3 section 1 layout
// and applies it to b.
func decodeSection1Edition3(r *bitio.Reader, b *Bulletin) error {
	fr := &fieldReader{r: r}

	fr.u24() // length, framing-only
	b.MasterTable = fr.u8()
	subcentre := fr.u8()
	centre := fr.u8()
	b.UpdateSequenceNumber = fr.u8()
	optFlag := fr.u8()
	b.Type = fr.u8()
	b.LocalSubtype = fr.u8()
	b.MasterTableVersion = fr.u8()
	b.LocalTableVersion = fr.u8()
	yearOfCentury := fr.u8()
	b.Month = int(fr.u8())
	b.Day = int(fr.u8())
	b.Hour = int(fr.u8())
	b.Minute = int(fr.u8())
	century := fr.u8()

	if fr.err != nil {
		return fr.err
	}

	b.Subcentre = uint16(subcentre)
	b.Centre = uint16(centre)
	b.OptionalSection = optFlag != 0
	b.Year = decodeCenturyYear(int(century), int(yearOfCentury))

	return nil
}

// decodeSection1Edition4 reads the 22-byte edition 4 section 1 layout.
func decodeSection1Edition4(r *bitio.Reader, b *Bulletin) error {
	fr := &fieldReader{r: r}

	fr.u24() // length, framing-only
	b.MasterTable = fr.u8()
	b.Centre = fr.u16()
	b.Subcentre = fr.u16()
	b.UpdateSequenceNumber = fr.u8()
	optFlag := fr.u8()
	b.Type = fr.u8()
	b.Subtype = fr.u8()
	b.LocalSubtype = fr.u8()
	b.MasterTableVersion = fr.u8()
	b.LocalTableVersion = fr.u8()
	b.Year = int(fr.u16())
	b.Month = int(fr.u8())
	b.Day = int(fr.u8())
	b.Hour = int(fr.u8())
	b.Minute = int(fr.u8())
	b.Second = int(fr.u8())

	if fr.err != nil {
		return fr.err
	}

	b.OptionalSection = optFlag != 0

	return nil
}

func encodeSection1Edition3(w *bitio.Writer, b *Bulletin) error {
	century, yearOfCentury := encodeCenturyYear(b.Year)

	fw := &fieldWriter{w: w}
	fw.u24(18)
	fw.u8(b.MasterTable)
	fw.u8(uint8(b.Subcentre))
	fw.u8(uint8(b.Centre))
	fw.u8(b.UpdateSequenceNumber)
	fw.u8(boolByte(b.OptionalSection))
	fw.u8(b.Type)
	fw.u8(b.LocalSubtype)
	fw.u8(b.MasterTableVersion)
	fw.u8(b.LocalTableVersion)
	fw.u8(uint8(yearOfCentury))
	fw.u8(uint8(b.Month))
	fw.u8(uint8(b.Day))
	fw.u8(uint8(b.Hour))
	fw.u8(uint8(b.Minute))
	fw.u8(uint8(century))

	return fw.err
}

func encodeSection1Edition4(w *bitio.Writer, b *Bulletin) error {
	fw := &fieldWriter{w: w}
	fw.u24(22)
	fw.u8(b.MasterTable)
	fw.u16(b.Centre)
	fw.u16(b.Subcentre)
	fw.u8(b.UpdateSequenceNumber)
	fw.u8(boolByte(b.OptionalSection))
	fw.u8(b.Type)
	fw.u8(b.Subtype)
	fw.u8(b.LocalSubtype)
	fw.u8(b.MasterTableVersion)
	fw.u8(b.LocalTableVersion)
	fw.u16(uint16(b.Year))
	fw.u8(uint8(b.Month))
	fw.u8(uint8(b.Day))
	fw.u8(uint8(b.Hour))
	fw.u8(uint8(b.Minute))
	fw.u8(uint8(b.Second))

	return fw.err
}

// decodeCenturyYear inverts encodeCenturyYear's mapping: century = year/100,
// year_of_century = 100 when year == 2000, else year % 100.
func decodeCenturyYear(century, yearOfCentury int) int {
	if yearOfCentury == 100 {
		return century * 100
	}

	return century*100 + yearOfCentury
}

func encodeCenturyYear(year int) (century, yearOfCentury int) {
	century = year / 100
	if year == 2000 {
		return century, 100
	}

	return century, year % 100
}

func boolByte(v bool) uint8 {
	if v {
		return 1
	}

	return 0
}
