package tables

import (
	"testing"

	"github.com/leandrotsampa/demuxfs/internal/dentry"
)

func dsmccMessageHeaderBody(messageID uint16, transactionID uint32, extra []byte) []byte {
	body := []byte{
		0x11, 0x01, // protocol_discriminator, dsmcc_type
		byte(messageID >> 8), byte(messageID),
		byte(transactionID >> 24), byte(transactionID >> 16), byte(transactionID >> 8), byte(transactionID),
		0x00,             // reserved
		byte(len(extra)), // adaptation_length
		0x00, 0x00,       // message_length (unused by the test)
	}
	return append(body, extra...)
}

// compatibilityDescriptorBody builds a compatibility_descriptor with two
// entries, the first carrying one (zero-length) sub_descriptor and the
// second none.
func compatibilityDescriptorBody() []byte {
	entry1 := []byte{
		0x01, 0x09, // descriptor_type, descriptor_length
		0x01,             // specifier_type
		0x00, 0x00, 0x00, // specifier_data
		0x00, 0x00, // model
		0x00, 0x00, // version
		0x01,       // sub_descriptor_count
		0x05, 0x00, // sub_descriptor_type, sub_descriptor_length=0
	}
	entry2 := []byte{
		0x02, 0x09,
		0x01,
		0x00, 0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
		0x00, // sub_descriptor_count = 0
	}
	descriptorCount := []byte{0x00, 0x02}
	payload := append(append([]byte{}, descriptorCount...), entry1...)
	payload = append(payload, entry2...)

	descriptorLength := len(payload)
	return append([]byte{byte(descriptorLength >> 8), byte(descriptorLength)}, payload...)
}

func TestParseDIIBuildsMessageHeader(t *testing.T) {
	c := newTestContext()
	body := dsmccMessageHeaderBody(0x1234, 0xAABBCCDD, nil)
	section := buildSection(tableIDDII, 0, 0, true, body)

	if err := c.ParseDII(0x30, section); err != nil {
		t.Fatal(err)
	}

	dir, ok := dentry.Lookup(c.Root, "DSM-CC/0x0030/V00/MessageHeader")
	if !ok {
		t.Fatal("MessageHeader missing")
	}
	msgID, _ := dir.Child("message_id")
	if string(msgID.Content()) != "4660" {
		t.Errorf("message_id = %q, want 4660", msgID.Content())
	}
	txID, _ := dir.Child("transaction_id")
	if string(txID.Content()) != "2864434397" {
		t.Errorf("transaction_id = %q, want 2864434397", txID.Content())
	}
}

func TestParseDIICompatibilityDescriptorNestedSubDescriptors(t *testing.T) {
	c := newTestContext()
	body := append(dsmccMessageHeaderBody(1, 1, nil), compatibilityDescriptorBody()...)
	section := buildSection(tableIDDII, 0, 0, true, body)

	if err := c.ParseDII(0x30, section); err != nil {
		t.Fatal(err)
	}

	d1, ok := dentry.Lookup(c.Root, "DSM-CC/0x0030/V00/CompatibilityDescriptor/descriptor_01/sub_descriptor_01")
	if !ok {
		t.Fatal("descriptor_01/sub_descriptor_01 missing")
	}
	subLen, _ := d1.Child("sub_descriptor_length")
	if string(subLen.Content()) != "0" {
		t.Errorf("sub_descriptor_length = %q, want 0", subLen.Content())
	}

	d2, ok := dentry.Lookup(c.Root, "DSM-CC/0x0030/V00/CompatibilityDescriptor/descriptor_02")
	if !ok {
		t.Fatal("descriptor_02 missing")
	}
	if _, ok := d2.Child("sub_descriptor_01"); ok {
		t.Error("descriptor_02 has an unexpected sub_descriptor_01 child")
	}
	count, _ := d2.Child("sub_descriptor_count")
	if string(count.Content()) != "0" {
		t.Errorf("descriptor_02 sub_descriptor_count = %q, want 0", count.Content())
	}
}

func TestParseDDBBuildsDownloadDataHeader(t *testing.T) {
	c := newTestContext()
	body := []byte{
		0x11, 0x02,
		0x00, 0x01, // message_id
		0x00, 0x00, 0x00, 0x2A, // download_id
		0x00,
		0x00, // adaptation_length
		0x00, 0x00,
	}
	section := buildSection(tableIDDDB, 0, 0, true, body)

	if err := c.ParseDDB(0x30, section); err != nil {
		t.Fatal(err)
	}
	dir, ok := dentry.Lookup(c.Root, "DSM-CC/0x0030/V00/DownloadDataHeader")
	if !ok {
		t.Fatal("DownloadDataHeader missing")
	}
	dlID, _ := dir.Child("download_id")
	if string(dlID.Content()) != "42" {
		t.Errorf("download_id = %q, want 42", dlID.Content())
	}
}

func TestParseDIIAndDDBShareTheSamePIDTableRoot(t *testing.T) {
	c := newTestContext()
	diiSection := buildSection(tableIDDII, 0, 0, true, dsmccMessageHeaderBody(1, 1, nil))
	if err := c.ParseDII(0x30, diiSection); err != nil {
		t.Fatal(err)
	}
	ddbBody := []byte{0x11, 0x02, 0x00, 0x01, 0x00, 0x00, 0x00, 0x2A, 0x00, 0x00, 0x00, 0x00}
	ddbSection := buildSection(tableIDDDB, 0, 1, true, ddbBody)
	if err := c.ParseDDB(0x30, ddbSection); err != nil {
		t.Fatal(err)
	}

	if _, ok := dentry.Lookup(c.Root, "DSM-CC/0x0030/V01/MessageHeader"); !ok {
		t.Error("DII's MessageHeader was lost after DDB supersession")
	}
	if _, ok := dentry.Lookup(c.Root, "DSM-CC/0x0030/V01/DownloadDataHeader"); !ok {
		t.Error("DownloadDataHeader missing from the new version directory")
	}
}
