package app

import "testing"

// サブコマンドの解析が正しく行われること
func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"引数なしはserve", nil, CommandServe},
		{"serve指定", []string{"serve"}, CommandServe},
		{"migrate指定", []string{"migrate"}, CommandMigrate},
		{"healthcheck指定", []string{"healthcheck"}, CommandHealthcheck},
		{"未知のコマンドはserveにフォールバック", []string{"unknown"}, CommandServe},
		{"後続の引数は無視される", []string{"migrate", "--verbose"}, CommandMigrate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCommand(tt.args); got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
