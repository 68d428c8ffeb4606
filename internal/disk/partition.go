package disk

/*
struct partition_struct
{
  char          fsname[128];
  char          partname[128];
  char          info[128];
  uint64_t      part_offset;
  uint64_t      part_size;
  uint64_t      sborg_offset;
  uint64_t      sb_offset;
  unsigned int  sb_size;
  unsigned int  blocksize;
  efi_guid_t    part_uuid;
  efi_guid_t    part_type_gpt;
  unsigned int  part_type_humax;
  unsigned int  part_type_i386;
  unsigned int  part_type_mac;
  unsigned int  part_type_sun;
  unsigned int  part_type_xbox;
  upart_type_t  upart_type;
  status_type_t status;
  unsigned int  order;
  errcode_type_t errcode;
  const arch_fnct_t *arch;
};
*/

// TypeTag identifies the scheme-specific partition type code: the MBR type
// byte, or the low bytes of a GPT type GUID for partitions we recognize.
type TypeTag uint32

// Partition describes one entry found by the locator, whether sourced from
// an MBR or a GPT partition table.
type Partition struct {
	Index           int
	StartOffsetByte uint64
	LengthByte      uint64
	TypeTag         TypeTag
	IsNTFS          bool
}

// End returns the exclusive byte offset one past the partition.
func (p Partition) End() uint64 {
	return p.StartOffsetByte + p.LengthByte
}
