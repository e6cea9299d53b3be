package extract

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		entry  string
		folder string
		want   string
	}{
		{"images/0007.jpeg", "images/", "7.jpg"},
		{"images/0000.png", "images/", "0.jpg"},
		{"images/abc.png", "images/", "abc.jpg"},
		{"images/0010.jpg", "images/", "10.jpg"},
		{"images/100.JPG", "images/", "100.jpg"},
		{"images/0a.png", "images/", "a.jpg"},
		{"images/.png", "images/", "0.jpg"},
		{"images/sub/001.png", "images/", "sub/001.jpg"},
		{"ch1_files/images/0042.png", "ch1_files/images/", "42.jpg"},
		{"images/1.2.png", "images/", "1.2.jpg"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.entry, tt.folder); got != tt.want {
			t.Errorf("Normalize(%q, %q) = %q, want %q", tt.entry, tt.folder, got, tt.want)
		}
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if got := Normalize("images/0003.png", "images/"); got != "3.jpg" {
			t.Fatalf("Normalize() run %d = %q", i, got)
		}
	}
}

func TestImageFolders(t *testing.T) {
	tests := []struct {
		name    string
		listing []string
		want    []string
	}{
		{
			name:    "empty listing still yields root folder",
			listing: nil,
			want:    []string{"images/"},
		},
		{
			name:    "fragment folders",
			listing: []string{"ch2_files/", "images/", "ch1_files/", "ch1_files/images/1.jpg"},
			want:    []string{"ch1_files/images/", "ch2_files/images/", "images/"},
		},
		{
			name:    "duplicates collapse",
			listing: []string{"a_files/", "a_files/"},
			want:    []string{"a_files/images/", "images/"},
		},
		{
			name:    "suffix must end the path",
			listing: []string{"a_files/x/", "a_files.txt", "b_files"},
			want:    []string{"images/"},
		},
		{
			name:    "nested fragment folder",
			listing: []string{"OEBPS/ch_files/"},
			want:    []string{"OEBPS/ch_files/images/", "images/"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageFolders(tt.listing); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ImageFolders() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImageFolders_OrderIndependent(t *testing.T) {
	a := ImageFolders([]string{"x_files/", "y_files/"})
	b := ImageFolders([]string{"y_files/", "x_files/"})
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("ImageFolders() depends on listing order: %v vs %v", a, b)
	}
}

func TestIsImageEntry(t *testing.T) {
	tests := map[string]bool{
		"images/1.jpg":  true,
		"images/1.JPEG": true,
		"images/1.Png":  true,
		"images/1.gif":  false,
		"images/1.svg":  false,
		"images/":       false,
		"images/jpg":    false,
	}
	for p, want := range tests {
		if got := IsImageEntry(p); got != want {
			t.Errorf("IsImageEntry(%q) = %v, want %v", p, got, want)
		}
	}
}
