package reports

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ignite/report-runner/internal/domain"
)

const (
	reportTable = "TRANS_REPORT"
	detailTable = "TRANS_DATA"
)

// ExcludedTransTypes are administrative transaction kinds never reported.
var ExcludedTransTypes = []string{
	"login", "balance", "logout", "create_batch", "report", "trans_query_ext",
}

var partitionPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#]{0,127}$`)

// ValidPartition reports whether p can be used as a partition identifier.
// Partitions are interpolated into SQL, so nothing else is accepted.
func ValidPartition(p string) bool { return partitionPattern.MatchString(p) }

// remitDetails maps TRANS_DATA keys to the pivoted column they populate.
var remitDetails = []struct{ key, column string }{
	{"operationType", "OPERATION_TYPE"},
	{"descriptionText", "DESCRIPTION"},
	{"partnerID", "PARTNER_ID"},
	{"partnerWalletId", "PARTNER_WALLET_ID"},
	{"partnerWorkflowID", "PARTNER_WORKFLOW_ID"},
	{"sendingPartnerName", "SENDING_PARTNER"},
	{"receiverFirstname", "RECEIVER_FIRSTNAME"},
	{"receiverName", "RECEIVER_NAME"},
	{"receiverAmount", "RECEIVER_AMOUNT"},
	{"receiverCurrency", "RECEIVER_CURRENCY"},
	{"senderFirstname", "SENDER_FIRSTNAME"},
	{"senderName", "SENDER_NAME"},
	{"senderAccountID", "SENDER_ACCOUNT_ID"},
	{"senderAmount", "SENDER_AMOUNT"},
	{"senderCurrency", "SENDER_CURRENCY"},
	{"senderCountry", "SENDER_COUNTRY"},
	{"trans_ext_reference", "EXT_REFERENCE"},
}

// query is a fully built statement with its arguments in bind order.
type query struct {
	SQL  string
	Args []any
}

// buildQuery renders the statement for p's report type.
func buildQuery(d Dialect, schema string, p domain.JobParams) (query, error) {
	if !ValidPartition(p.Partition) {
		return query{}, fmt.Errorf("%w: malformed partition %q", domain.ErrQuery, p.Partition)
	}

	params := []namedParam{
		{"nd", p.ND},
		{"date_debut", p.Start},
		{"date_fin", p.End},
	}
	nd := d.Bind("nd", 1)
	start := d.Bind("date_debut", 2)
	end := d.Bind("date_fin", 3)
	from := d.Table(schema, reportTable, p.Partition)

	excluded := make([]string, len(ExcludedTransTypes))
	for i, t := range ExcludedTransTypes {
		excluded[i] = "'" + t + "'"
	}
	where := fmt.Sprintf(`(tr.INITIATOR = %[1]s OR tr.CREDITOR = %[1]s OR tr.DEBTOR = %[1]s)
			AND tr.TRANS_TYPE NOT IN (%[2]s)
			AND tr.MODIFIED BETWEEN %[3]s AND %[4]s`, nd, strings.Join(excluded, ","), start, end)

	var sql string
	switch p.ReportType {
	case domain.ReportRemit:
		pivots := make([]string, len(remitDetails))
		for i, det := range remitDetails {
			pivots[i] = fmt.Sprintf("MAX(CASE WHEN td.TD_KEY = '%s' THEN td.VALUE END) AS %s", det.key, det.column)
		}
		sql = fmt.Sprintf(`
		SELECT
			tr.MODIFIED,
			tr.TRANSID AS REFMVOLA,
			tr.TRANS_TYPE,
			tr.INITIATOR,
			tr.AMOUNT,
			tr.DEBTOR,
			tr.CREDITOR,
			tr.STATE,
			tr.C_PRE_BAL AS BALANCE_AVANT,
			tr.C_POST_BAL AS BALANCE_APRES,
			%s
		FROM %s tr
		LEFT JOIN %s.%s td ON td.TRANSID = tr.TRANSID
		WHERE
			%s
		GROUP BY
			tr.MODIFIED, tr.TRANSID, tr.TRANS_TYPE, tr.INITIATOR, tr.AMOUNT,
			tr.DEBTOR, tr.CREDITOR, tr.STATE, tr.C_PRE_BAL, tr.C_POST_BAL
		ORDER BY tr.MODIFIED ASC`,
			strings.Join(pivots, ",\n\t\t\t"), from, schema, detailTable, where)

	case domain.ReportUp:
		sql = fmt.Sprintf(`
		SELECT
			tr.MODIFIED AS DATE_TRANS,
			tr.TRANSID AS N_TRANSACTION,
			tr.INITIATOR,
			tr.TRANS_TYPE,
			tr.CHANNEL,
			tr.STATE,
			CASE WHEN tr.WALLET = 'EWallet' THEN 'M_Vola' ELSE tr.WALLET END AS COMPTE,
			tr.AMOUNT,
			tr.RRP,
			tr.DEBTOR,
			tr.CREDITOR,
			tr.D_PRE_BAL AS DE_BALANCE_AVANT,
			tr.D_POST_BAL AS DE_BALANCE_APRES,
			tr.C_PRE_BAL AS VERS_BALANCE_AVANT,
			tr.C_POST_BAL AS VERS_BALANCE_APRES,
			tr.DETAILS1,
			tr.DETAILS2
		FROM %s tr
		WHERE
			%s
		ORDER BY tr.MODIFIED DESC`, from, where)

	default:
		return query{}, fmt.Errorf("%w: unknown report type %q", domain.ErrQuery, p.ReportType)
	}

	return query{SQL: sql, Args: d.Args(params)}, nil
}
