package cli

import (
	"bytes"
	"testing"
)

func TestProgressWriter(t *testing.T) {
	tests := []struct {
		name   string
		writes []string
		want   string
	}{
		{
			name:   "complete lines",
			writes: []string{"Enumerating objects: 6, done.\n"},
			want:   "remote: Enumerating objects: 6, done.\n",
		},
		{
			name:   "redrawn status line",
			writes: []string{"Counting objects:  50% (3/6)\r", "Counting objects: 100% (6/6), done.\n"},
			want:   "\rremote: Counting objects:  50% (3/6)\rremote: Counting objects: 100% (6/6), done.\n",
		},
		{
			name:   "split across writes",
			writes: []string{"Total 6 (del", "ta 0)\n"},
			want:   "remote: Total 6 (delta 0)\n",
		},
		{
			name:   "live line ended by finish",
			writes: []string{"Compressing objects: 50% (1/2)\r"},
			want:   "\rremote: Compressing objects: 50% (1/2)\n",
		},
		{
			name:   "partial line flushed by finish",
			writes: []string{"done"},
			want:   "remote: done\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewProgressWriter(&out, "remote: ")
			for _, w := range tt.writes {
				n, err := p.Write([]byte(w))
				if err != nil || n != len(w) {
					t.Fatalf("Write() = %d, %v", n, err)
				}
			}
			p.Finish()

			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}
