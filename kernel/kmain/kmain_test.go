package kmain

import (
	"path/filepath"
	"testing"

	"gosix/kernel/mm/swap"
)

func TestKmainWorkload(t *testing.T) {
	if err := Kmain(swap.NewMemDevice(workloadPages)); err != nil {
		t.Fatal(err)
	}
}

func TestKmainWithFileDevice(t *testing.T) {
	dev, err := swap.OpenFileDevice(filepath.Join(t.TempDir(), "gosix.swap"))
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	if err := Kmain(dev); err != nil {
		t.Fatal(err)
	}
}
