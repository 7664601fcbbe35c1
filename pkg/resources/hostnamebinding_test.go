// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"encoding/json"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitHostName(t *testing.T) {
	t.Parallel()

	label, zone, err := splitHostName("www.contoso-demo.com")
	require.NoError(t, err)
	assert.Equal(t, "www", label)
	assert.Equal(t, "contoso-demo.com", zone)
	assert.Equal(t, "asuid.www", verificationRecordName(label))

	for _, bad := range []string{"contoso", "contoso.com", ".contoso.com"} {
		_, _, err := splitHostName(bad)
		assert.Error(t, err, bad)
	}
}

func TestCertificateName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "www-contoso-demo-com", certificateName("www.contoso-demo.com"))
}

func TestBindingParams(t *testing.T) {
	t.Parallel()

	plain := bindingParams("app1", "")
	assert.Equal(t, "app1", *plain.Properties.SiteName)
	assert.Equal(t, armappservice.SSLStateDisabled, *plain.Properties.SSLState)
	assert.Nil(t, plain.Properties.Thumbprint)
	assert.Equal(t, armappservice.CustomHostNameDNSRecordTypeCName, *plain.Properties.CustomHostNameDNSRecordType)

	secured := bindingParams("app1", "ABCDEF")
	assert.Equal(t, armappservice.SSLStateSniEnabled, *secured.Properties.SSLState)
	assert.Equal(t, "ABCDEF", *secured.Properties.Thumbprint)
}

func TestDNSRecordSets(t *testing.T) {
	t.Parallel()

	txt := txtRecordSet("verification-id")
	require.Len(t, txt.Properties.TxtRecords, 1)
	assert.Equal(t, "verification-id", *txt.Properties.TxtRecords[0].Value[0])
	assert.Equal(t, dnsRecordTTL, *txt.Properties.TTL)

	cname := cnameRecordSet("app1.azurewebsites.net")
	assert.Equal(t, "app1.azurewebsites.net", *cname.Properties.CnameRecord.Cname)
}

func TestSerializeHostNameBindingProperties(t *testing.T) {
	t.Parallel()

	raw, err := serializeHostNameBindingProperties(armappservice.HostNameBinding{
		ID: to.Ptr("/subscriptions/s/resourceGroups/rg/providers/Microsoft.Web/sites/app1/hostNameBindings/www.contoso-demo.com"),
		Properties: &armappservice.HostNameBindingProperties{
			SSLState:   to.Ptr(armappservice.SSLStateSniEnabled),
			Thumbprint: to.Ptr("ABCDEF"),
		},
	}, "rg", "app1", "www.contoso-demo.com")
	require.NoError(t, err)

	var props map[string]any
	require.NoError(t, json.Unmarshal(raw, &props))
	assert.Equal(t, "SniEnabled", props["sslState"])
	assert.Equal(t, "ABCDEF", props["thumbprint"])
	assert.Equal(t, "app1", props["siteName"])
}
