package store

import "testing"

func TestMigrateURLUsesPgxScheme(t *testing.T) {
	cases := []struct{ in, want string }{
		{"postgres://u:p@db:5432/v?sslmode=disable", "pgx5://u:p@db:5432/v?sslmode=disable"},
		{"postgresql://u:p@db:5432/v", "pgx5://u:p@db:5432/v"},
		{"pgx5://u:p@db:5432/v", "pgx5://u:p@db:5432/v"},
	}
	for _, tc := range cases {
		if got := migrateURL(tc.in); got != tc.want {
			t.Fatalf("migrateURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
