package tables

// Reserved table_id values, per spec §6.
const (
	tableIDPAT = 0x00
	tableIDPMT = 0x02
	tableIDNIT = 0x40
	tableIDSDT = 0x42
	tableIDDII = 0x3B
	tableIDDDB = 0x3C

	tableIDEITFirst = 0x4E
	tableIDEITLast  = 0x5F

	tableIDST  = 0x72
	tableIDTOT = 0x73
	tableIDAIT = 0x74

	tableIDSDTT = 0xC3
	tableIDBIT  = 0xC4
	tableIDCDT  = 0xC8
)

// Reserved PIDs, per spec §6. Named for the table(s) carried, matching the
// ISDB-Tb conventions in ABNT NBR 15603.
const (
	pidPAT  = 0x0000
	pidCAT  = 0x0001
	pidNIT  = 0x0010
	pidSDT  = 0x0011 // also BAT
	pidHEIT = 0x0012
	pidRST  = 0x0013
	pidTDT  = 0x0014 // also TOT
	pidDCT  = 0x0017
	pidDIT  = 0x001E
	pidSIT  = 0x001F
	pidPCAT = 0x0022
	pidSDTT1 = 0x0023
	pidBIT  = 0x0024
	pidNBIT = 0x0025 // also LDT
	pidMEIT = 0x0026
	pidLEIT = 0x0027
	pidSDTT2 = 0x0028
	pidCDT  = 0x0029
)
