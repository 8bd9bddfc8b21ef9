package s3fetch

import "testing"

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{
			name:       "simple key",
			uri:        "s3://my-bucket/data.json",
			wantBucket: "my-bucket",
			wantKey:    "data.json",
		},
		{
			name:       "nested key",
			uri:        "s3://my-bucket/imports/2026/rows.json.gz",
			wantBucket: "my-bucket",
			wantKey:    "imports/2026/rows.json.gz",
		},
		{
			name:    "wrong scheme",
			uri:     "https://my-bucket/data.json",
			wantErr: true,
		},
		{
			name:    "missing key",
			uri:     "s3://my-bucket",
			wantErr: true,
		},
		{
			name:    "empty bucket",
			uri:     "s3:///data.json",
			wantErr: true,
		},
		{
			name:    "empty key after slash",
			uri:     "s3://my-bucket/",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseS3URI(%q) succeeded, want error", tt.uri)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseS3URI(%q): %v", tt.uri, err)
			}
			if bucket != tt.wantBucket || key != tt.wantKey {
				t.Errorf("ParseS3URI(%q) = (%q, %q), want (%q, %q)",
					tt.uri, bucket, key, tt.wantBucket, tt.wantKey)
			}
		})
	}
}
