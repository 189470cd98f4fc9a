package main

import (
	"fmt"
	"strconv"
)

// parseScientificNotation 解析科學記號字串（如 "1e5"）為整數
func parseScientificNotation(s string) (int, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// formatScientific 將數字格式化為科學記號（用於檔名）
func formatScientific(n int) string {
	if n == 0 {
		return "0"
	}
	exp := 0
	divisor := 1
	for temp := n; temp >= 10; temp /= 10 {
		exp++
		divisor *= 10
	}
	coefficient := float64(n) / float64(divisor)
	if coefficient == float64(int(coefficient)) {
		return fmt.Sprintf("%de%d", int(coefficient), exp)
	}
	return fmt.Sprintf("%.1fe%d", coefficient, exp)
}

// formatDecimal 將浮點數格式化為不含小數點的字串，保留兩位小數
func formatDecimal(f float64) string {
	val := int(f*100 + 0.5)
	switch {
	case val%100 == 0:
		return fmt.Sprintf("%d", val/100)
	case val%10 == 0:
		return fmt.Sprintf("%d_%d", val/100, (val%100)/10)
	default:
		return fmt.Sprintf("%d_%02d", val/100, val%100)
	}
}

// benchFileName 依參數自動產生檔名前綴
func benchFileName(n, k int, s, v, phase1Ratio, deleteRatio float64) string {
	return fmt.Sprintf("bench_n%s_k%s_s%s_v%s_p1r%s_dr%s",
		formatScientific(n),
		formatScientific(k),
		formatDecimal(s),
		formatDecimal(v),
		formatDecimal(phase1Ratio),
		formatDecimal(deleteRatio))
}
