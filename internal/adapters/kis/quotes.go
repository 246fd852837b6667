package kis

// quotes.go — endpoints de cotizaciones del mercado doméstico.
//
// Implementa ports.ClosePriceProvider (backtest) y ports.QuoteProvider
// (colector). Los campos del API llegan como strings numéricos; rspCode "0"
// es éxito y cualquier otro valor trae el detalle en msg1.

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const (
	trDailyPrice   = "FHKST01010400" // 주식현재가 일자별
	trCurrentPrice = "FHKST01010100" // 주식현재가 시세
	trAskingPrice  = "FHKST01010200" // 주식현재가 호가/예상체결
)

// GetClosePrice devuelve el precio de cierre del símbolo en la fecha dada,
// consultando la serie diaria y buscando la fila de esa fecha.
func (c *Client) GetClosePrice(ctx context.Context, symbol string, date time.Time) (float64, error) {
	params := url.Values{}
	params.Set("fid_cond_mrkt_div_code", "J")
	params.Set("fid_input_iscd", symbol)
	params.Set("fid_period_div_code", "D")
	params.Set("fid_org_adj_prc", "0")

	var out struct {
		RspCode string `json:"rt_cd"`
		Msg     string `json:"msg1"`
		Output  []struct {
			Date       string `json:"stck_bsop_date"` // YYYYMMDD
			ClosePrice string `json:"stck_clpr"`
		} `json:"output"`
	}
	if err := c.getQuote(ctx, "/uapi/domestic-stock/v1/quotations/inquire-daily-price", trDailyPrice, params, &out); err != nil {
		return 0, fmt.Errorf("kis.GetClosePrice: %s: %w", symbol, err)
	}
	if out.RspCode != "0" {
		return 0, fmt.Errorf("kis.GetClosePrice: %s: api error: %s", symbol, out.Msg)
	}

	want := date.Format("20060102")
	for _, row := range out.Output {
		if row.Date == want {
			return parseNum(row.ClosePrice, "stck_clpr")
		}
	}
	return 0, fmt.Errorf("kis.GetClosePrice: %s: no close price for %s", symbol, want)
}

// GetDailyTrades devuelve la foto actual del símbolo: variación % respecto al
// día anterior, volumen acumulado, último precio y fuerza de contratación.
func (c *Client) GetDailyTrades(ctx context.Context, symbol string) (prevDayRate, cumVolume, price, strength float64, err error) {
	params := url.Values{}
	params.Set("fid_cond_mrkt_div_code", "J")
	params.Set("fid_input_iscd", symbol)

	var out struct {
		RspCode string `json:"rt_cd"`
		Msg     string `json:"msg1"`
		Output  struct {
			PrevDayRate string `json:"prdy_ctrt"` // 전일 대비율
			CumVolume   string `json:"acml_vol"`  // 누적 거래량
			Price       string `json:"stck_prpr"` // 현재가
			Strength    string `json:"rltv"`      // 체결강도
		} `json:"output"`
	}
	if err = c.getQuote(ctx, "/uapi/domestic-stock/v1/quotations/inquire-price", trCurrentPrice, params, &out); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("kis.GetDailyTrades: %s: %w", symbol, err)
	}
	if out.RspCode != "0" {
		return 0, 0, 0, 0, fmt.Errorf("kis.GetDailyTrades: %s: api error: %s", symbol, out.Msg)
	}

	if prevDayRate, err = parseNum(out.Output.PrevDayRate, "prdy_ctrt"); err != nil {
		return 0, 0, 0, 0, err
	}
	if cumVolume, err = parseNum(out.Output.CumVolume, "acml_vol"); err != nil {
		return 0, 0, 0, 0, err
	}
	if price, err = parseNum(out.Output.Price, "stck_prpr"); err != nil {
		return 0, 0, 0, 0, err
	}
	if strength, err = parseNum(out.Output.Strength, "rltv"); err != nil {
		return 0, 0, 0, 0, err
	}
	return prevDayRate, cumVolume, price, strength, nil
}

// GetHogaRemainingInfo devuelve el remanente total del libro de órdenes
// (venta y compra) y la variación estimada de apertura.
func (c *Client) GetHogaRemainingInfo(ctx context.Context, symbol string) (totalAsk, totalBid, estimatedChange float64, err error) {
	params := url.Values{}
	params.Set("fid_cond_mrkt_div_code", "J")
	params.Set("fid_input_iscd", symbol)

	var out struct {
		RspCode string `json:"rt_cd"`
		Msg     string `json:"msg1"`
		Output1 struct {
			TotalAsk string `json:"total_askp_rsqn"` // 총 매도호가 잔량
			TotalBid string `json:"total_bidp_rsqn"` // 총 매수호가 잔량
		} `json:"output1"`
		Output2 struct {
			EstimatedChange string `json:"antc_cntg_prdy_ctrt"` // 예상 체결 전일대비율
		} `json:"output2"`
	}
	if err = c.getQuote(ctx, "/uapi/domestic-stock/v1/quotations/inquire-asking-price-exp-ccn", trAskingPrice, params, &out); err != nil {
		return 0, 0, 0, fmt.Errorf("kis.GetHogaRemainingInfo: %s: %w", symbol, err)
	}
	if out.RspCode != "0" {
		return 0, 0, 0, fmt.Errorf("kis.GetHogaRemainingInfo: %s: api error: %s", symbol, out.Msg)
	}

	if totalAsk, err = parseNum(out.Output1.TotalAsk, "total_askp_rsqn"); err != nil {
		return 0, 0, 0, err
	}
	if totalBid, err = parseNum(out.Output1.TotalBid, "total_bidp_rsqn"); err != nil {
		return 0, 0, 0, err
	}
	if estimatedChange, err = parseNum(out.Output2.EstimatedChange, "antc_cntg_prdy_ctrt"); err != nil {
		return 0, 0, 0, err
	}
	return totalAsk, totalBid, estimatedChange, nil
}

// GetRateComparedPrevDay devuelve solo la variación % respecto al cierre del
// día anterior.
func (c *Client) GetRateComparedPrevDay(ctx context.Context, symbol string) (float64, error) {
	rate, _, _, _, err := c.GetDailyTrades(ctx, symbol)
	return rate, err
}

// parseNum parsea un campo numérico del API, tolerando el string vacío que
// el API devuelve en preapertura.
func parseNum(raw, field string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("kis: parse %s %q: %w", field, raw, err)
	}
	return v, nil
}
