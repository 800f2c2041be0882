package cds

type executionRequest struct {
	Inputs inputs `json:"inputs"`
}

type inputs struct {
	ProductType []string  `json:"product_type"`
	Variable    []string  `json:"variable"`
	Date        []string  `json:"date"`
	Time        []string  `json:"time"`
	Area        []float64 `json:"area"`
	DataFormat  string    `json:"data_format"`
}

type jobResponse struct {
	JobID  string `json:"jobID"`
	Status string `json:"status"`
}

type resultsResponse struct {
	Asset struct {
		Value assetValue `json:"value"`
	} `json:"asset"`
}

type assetValue struct {
	Href string `json:"href"`
	Type string `json:"type"`
}

type errorResponse struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}
