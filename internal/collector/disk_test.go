package collector

import (
	"encoding/json"
	"testing"
)

func TestInferDiskType(t *testing.T) {
	rotating := true
	solid := false

	cases := []struct {
		name          string
		interfaceType string
		mediaType     string
		tran          string
		model         string
		rota          *bool
		want          string
	}{
		{"nvme interface", "NVMe", "", "", "", nil, "NVMe SSD"},
		{"nvme transport", "", "", "nvme", "", nil, "NVMe SSD"},
		{"fixed disk media", "", "Fixed hard disk media", "", "", nil, "HDD"},
		{"rotational flag", "", "", "sata", "", &rotating, "HDD"},
		{"non-rotational flag", "", "", "sata", "", &solid, "SSD"},
		{"ssd media string", "", "External SSD media", "", "", nil, "SSD"},
		{"ssd model series", "", "", "", "Samsung 980", nil, "SSD"},
		{"nvme model", "", "", "", "WD_BLACK SN850 NVMe 1TB", nil, "NVMe SSD"},
		{"hdd model", "", "", "", "Seagate Barracuda ST2000DM008", nil, "HDD"},
		{"flag beats model", "", "", "sata", "Samsung SSD 860", &rotating, "HDD"},
		{"nothing known", "", "", "", "", nil, "Unknown"},
	}
	for _, tc := range cases {
		if got := inferDiskType(tc.interfaceType, tc.mediaType, tc.tran, tc.model, tc.rota); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFlexBool(t *testing.T) {
	var d lsblkDevice
	if err := json.Unmarshal([]byte(`{"rota": "1"}`), &d); err != nil {
		t.Fatal(err)
	}
	if !d.Rota.Set || !d.Rota.Value {
		t.Fatalf("string form: %+v", d.Rota)
	}
	if err := json.Unmarshal([]byte(`{"rota": false}`), &d); err != nil {
		t.Fatal(err)
	}
	if !d.Rota.Set || d.Rota.Value {
		t.Fatalf("bool form: %+v", d.Rota)
	}
}

func TestFindDiskForDevice(t *testing.T) {
	devices := []lsblkDevice{
		{Name: "sda", Type: "disk"},
		{Name: "nvme0n1", Type: "disk"},
		{Name: "sr0", Type: "rom"},
	}
	if d := findDiskForDevice(devices, "nvme0n1p2"); d == nil || d.Name != "nvme0n1" {
		t.Fatalf("nvme partition: %+v", d)
	}
	if d := findDiskForDevice(devices, "sda1"); d == nil || d.Name != "sda" {
		t.Fatalf("sata partition: %+v", d)
	}
	if d := findDiskForDevice(devices, "mmcblk0p1"); d != nil {
		t.Fatalf("unmatched device should return nil, got %+v", d)
	}
}

func TestParseLsblkTree(t *testing.T) {
	out := `{"blockdevices": [
		{"name": "nvme0n1", "model": "Samsung SSD 980 PRO 1TB", "serial": "S5GXNX0T", "rota": false, "tran": "nvme", "type": "disk",
		 "children": [{"name": "nvme0n1p1", "mountpoint": "/"}]}
	]}`
	var tree lsblkOutput
	if err := json.Unmarshal([]byte(out), &tree); err != nil {
		t.Fatal(err)
	}
	if len(tree.BlockDevices) != 1 {
		t.Fatalf("devices = %d", len(tree.BlockDevices))
	}
	d := tree.BlockDevices[0]
	if d.Model != "Samsung SSD 980 PRO 1TB" || d.Tran != "nvme" {
		t.Fatalf("disk = %+v", d)
	}
	if len(d.Children) != 1 || d.Children[0].Mountpoint != "/" {
		t.Fatalf("children = %+v", d.Children)
	}
}
